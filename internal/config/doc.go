// Package config loads the YAML configuration of the compcache driver.
//
// A minimal file names only the cache and, for stabilization, the import
// path of the generated package:
//
//	version: "1"
//	cache: parts.cache
//	loader:
//	  dir: ./app
//	  build_flags: -tags=integration
//	stabilize:
//	  import_path: example.com/app/stable
//
// Everything else has a default.
package config
