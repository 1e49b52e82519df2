// Package playerv1 defines the wire messages of vibechef.player.v1.
package playerv1

// Track is one catalog entry.
type Track struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	SourceURL string `json:"source_url"`
	Current   bool   `json:"current,omitempty"`
}

// PlayerState is a snapshot of the player.
type PlayerState struct {
	TrackID             string  `json:"track_id"`
	Title               string  `json:"title"`
	Artist              string  `json:"artist"`
	Index               int     `json:"index"`
	Transport           string  `json:"transport"` // "stopped", "playing" or "paused"
	Pending             bool    `json:"pending"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
	DurationSeconds     float64 `json:"duration_seconds"`
	DurationKnown       bool    `json:"duration_known"`
	ElapsedText         string  `json:"elapsed_text"`
	DurationText        string  `json:"duration_text"`
	Progress            float64 `json:"progress"`
	Volume              int     `json:"volume"`
	SourceURL           string  `json:"source_url"`
	Catalog             []Track `json:"catalog"`
	PlaylistName        string  `json:"playlist_name,omitempty"`
	PlaylistDescription string  `json:"playlist_description,omitempty"`
}

// Notification is one message of the Subscribe stream.
type Notification struct {
	SequenceNo uint64       `json:"sequence_no"`
	Type       string       `json:"type"` // "initial_state", an engine event type, or "notice"
	Message    string       `json:"message,omitempty"`
	State      *PlayerState `json:"state"`
}

type GetStateRequest struct{}

type GetStateResponse struct {
	State *PlayerState `json:"state"`
}

type TogglePlayPauseRequest struct{}

type NextRequest struct{}

type PreviousRequest struct{}

type SelectTrackRequest struct {
	Index int `json:"index"`
}

type SeekRequest struct {
	Fraction float64 `json:"fraction"`
}

type SetVolumeRequest struct {
	Percent int `json:"percent"`
}

// ControlResponse is returned by every transport control.
type ControlResponse struct {
	State *PlayerState `json:"state"`
}

// LoadTracksRequest carries loosely-typed track records. An empty list loads the samples.
type LoadTracksRequest struct {
	Tracks []map[string]any `json:"tracks"`
}

type LoadTracksResponse struct {
	Count int          `json:"count"`
	State *PlayerState `json:"state"`
}

type GeneratePlaylistRequest struct {
	Mood          string   `json:"mood"`
	Genres        []string `json:"genres,omitempty"`
	Count         int      `json:"count,omitempty"`
	AvoidExplicit bool     `json:"avoid_explicit,omitempty"`
}

type GeneratePlaylistResponse struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Tracks      []Track      `json:"tracks"`
	State       *PlayerState `json:"state"`
}

type SubscribeRequest struct{}
