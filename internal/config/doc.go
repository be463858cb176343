// Package config defines configuration structures for the warcfetch CLI.
//
// Configuration can be provided via, from lowest to highest precedence:
//   - YAML settings file
//   - .env file (loaded into the environment, never overriding it)
//   - Environment variables (WASAPI_ prefix)
//   - Command-line flags
//
// # Example
//
//	base_url: https://partner.archive-it.org/wasapi/v1/
//	auth_url: https://partner.archive-it.org/login
//	username: fred
//	output_base_dir: /data/warcs/
//	checksum_algorithm: md5
//	timeout: 30m
//	mirror:
//	  bucket: s3://preservation?region=us-west-2
//	  prefix: wasapi
//	selection:
//	  collection_id: "5425"
//	  crawl_start_after: "2017-01-01"
//	  job_id_lower_bound: "302000"
package config
