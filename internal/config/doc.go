// Package config loads photocraft settings.
//
// Resolution order, lowest to highest precedence:
//
//  1. Built-in defaults (see Default)
//  2. ~/.config/photocraft/config.toml, or the path passed to Load
//  3. PHOTOCRAFT_WEBHOOK_URL, PHOTOCRAFT_DELIVERY_MODE, PHOTOCRAFT_STATUS_URL
//     and PHOTOCRAFT_LOG_LEVEL, optionally seeded from a .env file by LoadDotEnv
//  4. Command-line Overrides passed to Config.Apply
//
// A missing config file is not an error. Durations use Go syntax ("2s",
// "1500ms"). Empty or whitespace-only values fall back to the defaults.
//
// Example config.toml:
//
//	webhook_url = "https://hooks.example.com/photocraft"
//	delivery_mode = "strict"
//	request_timeout = "10s"
//	poll_interval = "2s"
//	poll_max_attempts = 10
//	status_url = "https://hooks.example.com/status"
//	abort_on_notify_error = false
//	max_upload_bytes = 0
//	user_id = "anonymous"
//	platform = "web"
//	log_file = "~/.local/state/photocraft/photocraft.log"
package config
