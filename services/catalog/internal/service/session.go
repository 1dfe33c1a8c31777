// Package service orchestrates review submission, likes and downloads for
// one app on behalf of one device.
package service

import (
	"github.com/example/app-catalog/services/catalog/internal/store"
	"github.com/example/app-catalog/services/catalog/internal/votes"
)

// Draft is the pending review input. It survives a failed submission so the
// user can retry without retyping.
type Draft struct {
	Stars int    `json:"stars"`
	Text  string `json:"comment"`
}

func (d Draft) Empty() bool { return d.Stars == 0 && d.Text == "" }

// Session is the state one request or CLI invocation works on: the loaded
// app, the device's vote guard and the review draft. Services mutate App only
// after the store confirms a write.
type Session struct {
	App      *store.App
	Guard    *votes.Guard
	DeviceID string
	Draft    Draft
}

func NewSession(app *store.App, guard *votes.Guard, deviceID string) *Session {
	return &Session{App: app, Guard: guard, DeviceID: deviceID}
}
