// Package config loads the message catalogs that hold every user-visible
// text of gridsnake.
//
// A catalog is a JSON or YAML file in the catalog directory. Keys left out of
// a file keep their built-in values, so a catalog can override a single text.
// When the directory has no default.json or default.yaml the built-in English
// catalog is the default.
//
// Usage:
//
//	manager, err := config.NewManager("catalogs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	pirate, err := manager.LoadCatalog("pirate")
//
// Validation:
//
// Every text is required. Format strings must use exactly the verbs they are
// rendered with, for example one %d in too_many_players. ValidateCatalog
// reports all problems of a catalog at once.
package config
