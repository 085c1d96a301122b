package bot

import (
	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/roster"
)

// Conversation ids.
const (
	convMain      dialog.ID = "main"
	convLinks     dialog.ID = "links"
	convNotice    dialog.ID = "notice"
	convSubscribe dialog.ID = "subscribe"
	convHelp      dialog.ID = "help"
)

// States of the main menu.
const (
	SelectingAction dialog.State = "SELECTING_ACTION"
	Showing         dialog.State = "SHOWING"
)

// States of the nested menus.
const (
	SelectingLink  dialog.State = "SELECTING_LINK"
	SelectingGroup dialog.State = "SELECTING_GROUP"
	Typing         dialog.State = "TYPING"
	SubscribeGroup dialog.State = "SUBSCRIBE_GROUP"
	// Stopping ends a nested menu together with the main one.
	Stopping dialog.State = "STOPPING"
)

// Button payloads.
const (
	payloadLinks     = "links"
	payloadNotice    = "notice"
	payloadSubscribe = "subscribe"
	payloadMine      = "mine"
	payloadDone      = "done"
	payloadBack      = "back"
	// payloadLinkChild prefixes the id of a links submenu.
	payloadLinkChild = "links:"
)

// childToParent is shared by every nested menu: a plain end redraws the main
// menu, Stopping ends the main conversation too.
var childToParent = map[dialog.State]dialog.State{
	dialog.End: SelectingAction,
	Stopping:   dialog.End,
}

// conversations builds and validates the dialog tree. Top-level order: main, help.
func (h *handlers) conversations() (*dialog.Registry, error) {
	main := &dialog.Definition{
		ID: convMain,
		EntryPoints: []dialog.Route{
			dialog.Handle("start", dialog.OnCommand("start"), h.start, SelectingAction),
		},
		AllowReentry: true,
		States: map[dialog.State][]dialog.Route{
			SelectingAction: {
				dialog.Nest(convLinks),
				dialog.Nest(convNotice),
				dialog.Nest(convSubscribe),
				dialog.Handle("mine", dialog.OnButton(payloadMine), h.showSubscriptions, Showing),
				dialog.Handle("done", dialog.OnButton(payloadDone), h.done, dialog.End),
			},
			Showing: {
				dialog.Handle("back", dialog.OnButton(payloadBack), h.start, SelectingAction),
			},
		},
		Fallbacks: []dialog.Route{
			h.stopRoute(),
			h.helpRoute(SelectingAction, Showing),
		},
	}

	links := &dialog.Definition{
		ID: convLinks,
		EntryPoints: []dialog.Route{
			dialog.Handle("links", dialog.OnButton(payloadLinks), h.openLinks, SelectingLink),
		},
		States: map[dialog.State][]dialog.Route{
			SelectingLink: {
				dialog.Handle("links.child", dialog.OnButtonPattern(`^`+payloadLinkChild+`.+$`), h.openLinkChild, SelectingLink),
				dialog.Handle("links.back", dialog.OnButton(payloadBack), h.linksBack, SelectingLink, dialog.End),
			},
		},
		Fallbacks: []dialog.Route{
			h.stopRoute(),
			h.helpRoute(SelectingLink),
		},
		MapToParent: childToParent,
	}

	notice := &dialog.Definition{
		ID: convNotice,
		EntryPoints: []dialog.Route{
			dialog.Handle("notice", dialog.OnButton(payloadNotice), h.selectNoticeGroup, SelectingGroup),
		},
		States: map[dialog.State][]dialog.Route{
			SelectingGroup: {
				dialog.Handle("notice.group", dialog.OnButtonSuffix(roster.GroupMarker), h.askForInput, SelectingGroup, Typing),
			},
			Typing: {
				dialog.Handle("notice.text", dialog.OnText(), h.saveInput, Stopping, dialog.Stop),
			},
		},
		Fallbacks: []dialog.Route{
			h.backRoute(),
			h.stopRoute(),
			h.helpRoute(SelectingGroup, Typing),
		},
		MapToParent: childToParent,
	}

	subscribe := &dialog.Definition{
		ID: convSubscribe,
		EntryPoints: []dialog.Route{
			dialog.Handle("subscribe", dialog.OnButton(payloadSubscribe), h.selectSubscribeGroup, SubscribeGroup),
		},
		States: map[dialog.State][]dialog.Route{
			SubscribeGroup: {
				dialog.Handle("subscribe.group", dialog.OnButtonSuffix(roster.GroupMarker), h.subscribe, SubscribeGroup, Stopping),
			},
		},
		Fallbacks: []dialog.Route{
			h.backRoute(),
			h.stopRoute(),
			h.helpRoute(SubscribeGroup),
		},
		MapToParent: childToParent,
	}

	help := &dialog.Definition{
		ID: convHelp,
		EntryPoints: []dialog.Route{
			dialog.Handle("help", dialog.OnCommand("help"), h.help, dialog.End),
		},
	}

	return dialog.NewRegistry([]dialog.ID{convMain, convHelp}, main, links, notice, subscribe, help)
}

func (h *handlers) stopRoute() dialog.Route {
	return dialog.Handle("stop", dialog.OnCommand("stop"), h.stop, dialog.Stop)
}

// helpRoute answers /help and keeps the conversation where it is.
func (h *handlers) helpRoute(states ...dialog.State) dialog.Route {
	return dialog.Handle("help", dialog.OnCommand("help"), h.help, states...)
}

func (h *handlers) backRoute() dialog.Route {
	return dialog.Handle("back", dialog.OnButton(payloadBack), h.back, dialog.End)
}
