// Package chat runs the live-chat side of the bot.
//
// It provides three pieces:
//   - Dispatcher: the ordered per-message policy. Stale first-page items,
//     the bot's own messages and banned authors are dropped; a per-user
//     cooldown gates everything else; first contact is welcomed; commands are
//     resolved against the registry and gated by a global cooldown and the
//     permission table before the handler runs.
//   - Poller: the sequential fetch loop. It pages through the platform's live
//     chat, feeds each page to the Dispatcher in arrival order and sends any
//     replies. It sleeps for the server-suggested interval between pages.
//   - Broadcaster: sends a random configured announcement every interval
//     until its context is cancelled.
//
// The platform itself is abstracted behind Platform so tests can drive the
// loop without network access; youtubeapi.LiveChat is the production
// implementation.
package chat
