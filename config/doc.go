// Package config loads the omnisearch configuration file.
//
// Durations accept Go syntax ("5m", "6h") or plain seconds:
//
//	data_dir: ./databases
//	max_results: 50
//	similarity_threshold: 0.3
//	check_interval: 300
//	reindex_interval: 6h
//	watch: true
//	embedding:
//	  host: http://localhost:11434
//	  model: paraphrase-multilingual-MiniLM-L12-v2
package config
