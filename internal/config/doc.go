// Package config loads optilist configuration.
//
// Configuration lives in optilist.json, optilist.yaml or optilist.yml.
// Every field has a default, so a missing file or an empty one is valid:
//
//	server:
//	  address: ":8080"
//	  read_timeout: 60s
//	store:
//	  driver: sqlite
//	  dsn: items.sqlite
//	log:
//	  level: debug
//	  format: json
//	metrics:
//	  enabled: true
//
// Errors are *errors.Error values with codes in the E100 range; parse
// errors carry the file location.
package config
