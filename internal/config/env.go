package config

import "strings"

// telegram.bot_token -> BASECFG_TELEGRAM_BOT_TOKEN
var envKeyReplacer = strings.NewReplacer(".", "_")
