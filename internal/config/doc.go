// Package config loads phoque's HCL configuration.
//
// The file is optional; every setting has a default. Values from the
// environment (and from a .env file next to the working directory) override
// the file:
//
//	PHOQUE_STORE             json | sqlite
//	PHOQUE_RULES_FILE        path of the rule store
//	PHOQUE_LOG_LEVEL         debug | info | warn | error
//	PHOQUE_LOG_JSON          true | false
//	PHOQUE_ACTIVE_ONLY       true | false
//	PHOQUE_METRICS_TEXTFILE  node_exporter textfile path, empty disables
//
// Example:
//
//	store      = "sqlite"
//	rules_file = "/var/lib/phoque/rules.db"
//	log_level  = "debug"
//
//	apply {
//	  active_only = false
//	}
//
//	metrics {
//	  textfile = "/var/lib/node_exporter/textfile/phoque.prom"
//	}
package config
