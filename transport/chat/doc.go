// Package chat adapts chat messages and reactions to gridsnake rounds.
//
// Commands:
//
//	::snake @a @b ...   start a multiplayer round with the mentioned users
//	::solo              start a solo round for the author
//	::help              show the help text
//
// Players steer by reacting with ⬆ ➡ ⬇ ⬅ and give up with ❌. Every text the
// bot writes comes from the active message catalog.
package chat
