package ui

import (
	"context"
	"sync"
	"time"
)

// recordingView remembers what a page showed.
type recordingView struct {
	mu          sync.Mutex
	events      []string
	fieldErrors map[string]string
	msgKind     MessageKind
	msgText     string
	busy        bool
	label       string
	alerts      []string
	navigations []Page
	resets      []map[string]string
}

func newRecordingView() *recordingView {
	return &recordingView{fieldErrors: map[string]string{}}
}

func (v *recordingView) ClearMessages() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "clear")
	v.fieldErrors = map[string]string{}
	v.msgKind, v.msgText = "", ""
}

func (v *recordingView) SetFieldError(field, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "field:"+field)
	v.fieldErrors[field] = text
}

func (v *recordingView) SetMessage(kind MessageKind, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "message:"+string(kind))
	v.msgKind, v.msgText = kind, text
}

func (v *recordingView) SetBusy(busy bool, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if busy {
		v.events = append(v.events, "busy")
	} else {
		v.events = append(v.events, "idle")
	}
	v.busy, v.label = busy, label
}

func (v *recordingView) ResetForm(defaults map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "reset")
	v.resets = append(v.resets, defaults)
}

func (v *recordingView) Alert(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "alert")
	v.alerts = append(v.alerts, text)
}

func (v *recordingView) Navigate(page Page) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, "navigate:"+string(page))
	v.navigations = append(v.navigations, page)
}

func (v *recordingView) isBusy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy
}

// recordingSleep captures redirect delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}
