// Package config provides configuration for the Daifugo client.
//
// The config package handles:
//   - Defaults suitable for a room server on localhost
//   - Optional JSON or YAML config files
//   - Environment variable overrides (DAIFUGO_*)
//   - Building the websocket and room endpoint URLs
//
// Backend Selection:
//
// A single value picks both host and transport security. A bare host such
// as "localhost:8080" uses ws:// and http://. A URL with a scheme decides
// for itself: "https://game.example.com" and "wss://game.example.com" both
// use wss:// for the game connection and https:// for room calls.
//
// Configuration Format:
//
//	backend: https://game.example.com
//	path_prefix: /daifugo
//	selection_policy: clear   # or intersect
//	sessions_dir: sessions
//	http_timeout: 10s
//	listen: :8090
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("DAIFUGO_CONFIG"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	endpoint, _ := cfg.WebSocketURL("lobby", "alice")
package config
