// Package dialog implements nested, menu-driven conversations on top of the
// session store.
//
// A conversation is a Definition: named states, each with an ordered list of
// routes (matcher + handler), plus entry points, fallbacks and a MapToParent
// table. Definitions are validated once when a Registry is built and are
// read-only afterwards.
//
// The Dispatcher turns one inbound Event into at most one transition. It keeps
// a stack of frames per user, outermost first. The innermost frame that has a
// matching route handles the event; frames nested inside it are discarded.
// A route may nest a child conversation, in which case the child's entry point
// handles the event and a new frame is pushed. When a child returns a state
// listed in its MapToParent table, the child frame is popped and the mapped
// state is applied to the parent frame.
//
// Two sentinels are understood by every conversation: End finishes the
// current conversation and Stop clears the whole stack regardless of depth.
package dialog
