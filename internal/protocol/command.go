package protocol

import (
	"encoding/json"
	"fmt"
)

// Command tags, a closed set. StartPlaylist is the only tag with arguments.
const (
	CmdPreviousTrack = "PreviousTrack"
	CmdNextTrack     = "NextTrack"
	CmdPlayPause     = "PlayPause"
	CmdVolumeUp      = "VolumeUp"
	CmdVolumeDown    = "VolumeDown"
	CmdShutdown      = "Shutdown"
	CmdReload        = "Reload"
	CmdStatus        = "Status"
	CmdStartPlaylist = "StartPlaylist"
)

// Command is a control action sent to the server. Name and Force are only
// meaningful for StartPlaylist.
type Command struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Force bool   `json:"force,omitempty"`
}

var knownCommands = map[string]bool{
	CmdPreviousTrack: true,
	CmdNextTrack:     true,
	CmdPlayPause:     true,
	CmdVolumeUp:      true,
	CmdVolumeDown:    true,
	CmdShutdown:      true,
	CmdReload:        true,
	CmdStatus:        true,
	CmdStartPlaylist: true,
}

// KnownCommand reports whether tag is in the command vocabulary.
func KnownCommand(tag string) bool {
	return knownCommands[tag]
}

// StartPlaylist builds the one parameterized command.
func StartPlaylist(name string, force bool) Command {
	return Command{Type: CmdStartPlaylist, Name: name, Force: force}
}

// DecodeCommand parses a raw command payload, rejecting unknown tags.
func DecodeCommand(raw json.RawMessage) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("malformed command: %w", err)
	}
	if !KnownCommand(cmd.Type) {
		return Command{}, fmt.Errorf("unknown command tag %q", cmd.Type)
	}
	return cmd, nil
}
