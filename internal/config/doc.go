// Package config provides configuration parsing for vstore.
//
// The configuration is stored in vstore.json (or vstore.yaml) in the
// working directory. This package handles loading, saving, and validating
// configuration.
//
// # Configuration File Structure
//
//	{
//	  "name": "counter",
//	  "host": {
//	    "queueSize": 256,
//	    "consistencyReads": 2
//	  },
//	  "devtools": {
//	    "host": "localhost",
//	    "port": 4100,
//	    "encoding": "json",
//	    "allowOrigins": ["http://localhost:5173"],
//	    "readOnly": false
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "vstore"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "log": {
//	    "level": "debug"
//	  }
//	}
//
// The same keys are accepted in YAML.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Devtools:", cfg.DevtoolsURL())
package config
