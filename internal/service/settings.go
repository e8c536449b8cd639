package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/config"
	"github.com/courtshare/courtshare/internal/slot"
)

// Settings are the facility rules the services enforce.
type Settings struct {
	Facility clock.Facility

	// CreateWindow/CreateMaxSlots govern new bookings; EditWindow and
	// EditMaxSlots govern rescheduling.
	CreateWindow   slot.Window
	CreateMaxSlots int
	EditWindow     slot.Window
	EditMaxSlots   int

	InviteTTL time.Duration
	BaseURL   string // public origin for invite links, no trailing slash
}

// SettingsFromConfig resolves the facility timezone and operating windows.
func SettingsFromConfig(cfg config.Config) (Settings, error) {
	fac, err := clock.LoadFacility(cfg.Facility.Timezone)
	if err != nil {
		return Settings{}, err
	}
	open, err := clock.ParseWallTime(cfg.Facility.Open)
	if err != nil {
		return Settings{}, fmt.Errorf("FACILITY_OPEN: %w", err)
	}
	closing, err := clock.ParseWallTime(cfg.Facility.Close)
	if err != nil {
		return Settings{}, fmt.Errorf("FACILITY_CLOSE: %w", err)
	}
	s := Settings{
		Facility:       fac,
		CreateWindow:   slot.Window{Open: open, Close: closing, Width: time.Duration(cfg.Facility.SlotMinutes) * time.Minute},
		CreateMaxSlots: cfg.Facility.MaxSlots,
		EditWindow:     slot.Window{Open: open, Close: closing, Width: time.Duration(cfg.Facility.EditSlotMinutes) * time.Minute},
		EditMaxSlots:   cfg.Facility.EditMaxSlots,
		InviteTTL:      cfg.InviteTTL,
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
	}
	if err := s.CreateWindow.Validate(); err != nil {
		return Settings{}, fmt.Errorf("create window: %w", err)
	}
	if err := s.EditWindow.Validate(); err != nil {
		return Settings{}, fmt.Errorf("edit window: %w", err)
	}
	return s, nil
}
