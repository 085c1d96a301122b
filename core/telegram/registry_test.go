package telegram

import (
	"testing"

	"github.com/m3rciful/officebot/core/telegram/commands"
)

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Open the menu"})
	reg.RegisterCommand("/stop", commands.Command{Description: "Abort", Aliases: []string{"cancel"}})
	reg.RegisterCommand("/debug", commands.Command{Description: "Hidden", Hidden: true})
	reg.RegisterCommand("help", commands.Command{Description: "no slash"})
	reg.RegisterCommand("/start", commands.Command{Description: "duplicate"})
	reg.RegisterCommand("/empty", commands.Command{})

	visible := reg.ListCommands(true)
	if len(visible) != 2 || visible[0].Text != "start" || visible[1].Text != "stop" {
		t.Fatalf("visible = %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 3 {
		t.Fatalf("all = %+v", all)
	}
	if got := reg.Endpoints(); len(got) != 4 || got[0] != "/cancel" {
		t.Fatalf("endpoints = %v", got)
	}
	key, cmd, ok := reg.LookupCommand("cancel")
	if !ok || key != "/stop" || cmd.Description != "Abort" {
		t.Fatalf("lookup alias = %q %+v %v", key, cmd, ok)
	}
	if _, cmd, _ := reg.LookupCommand("/start"); cmd.Description != "Open the menu" {
		t.Fatalf("duplicate registration replaced original: %+v", cmd)
	}
}
