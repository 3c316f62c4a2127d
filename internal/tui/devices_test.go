// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandcore/frequatuner/internal/audio"
)

var testDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{ID: 3, Name: "USB Interface", MaxInputChannels: 1, DefaultSampleRate: 96000},
}

func keyMsg(r string) tea.KeyMsg {
	switch r {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func press(m DeviceListModel, keys ...string) (DeviceListModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(DeviceListModel)
	}
	return m, cmd
}

func readyModel(t *testing.T) DeviceListModel {
	t.Helper()
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices, nil })

	msg := m.Init()()
	next, _ := m.Update(msg)
	next, _ = next.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(DeviceListModel)
}

func TestDeviceListSelect(t *testing.T) {
	m := readyModel(t)
	if view := m.View(); !strings.Contains(view, "USB Interface") {
		t.Fatalf("device list missing devices:\n%s", view)
	}

	m, _ = press(m, "down", "enter")
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter should open the configuration screen")
	}
	if sampleRates[m.sampleRateIndex] != 96000 {
		t.Errorf("preselected rate = %.0f, want the device default", sampleRates[m.sampleRateIndex])
	}

	m, cmd := press(m, "up", "enter")
	if cmd == nil {
		t.Fatal("confirming should quit")
	}
	sel, ok := m.Selection()
	if !ok {
		t.Fatal("expected a selection")
	}
	want := Selection{DeviceID: 3, DeviceName: "USB Interface", SampleRate: 88200}
	if sel != want {
		t.Errorf("Selection() = %+v, want %+v", sel, want)
	}
}

func TestDeviceListBackAndQuit(t *testing.T) {
	m := readyModel(t)

	m, _ = press(m, "enter", "esc")
	if m.activeScreen != ListScreen {
		t.Error("esc should return to the list")
	}

	m, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := m.Selection(); ok {
		t.Error("quitting must not produce a selection")
	}
}

func TestDeviceListFetchError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host api") })
	next, _ := m.Update(m.Init()())
	if view := next.View(); !strings.Contains(view, "no host api") {
		t.Errorf("view = %q", view)
	}
}

func TestDeviceListEmpty(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, nil })
	next, _ := m.Update(m.Init()())
	next, _ = next.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(DeviceListModel)

	m, _ = press(m, "enter")
	if m.activeScreen != ListScreen {
		t.Error("enter without devices must stay on the list")
	}
	if !strings.Contains(m.View(), "No input devices found.") {
		t.Errorf("view = %q", m.View())
	}
}
