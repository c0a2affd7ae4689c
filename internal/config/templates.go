package config

import (
	"fmt"
	"os"
	"strings"
)

// SchemaFile is the sample schema name written next to the project config.
const SchemaFile = "messages.toml"

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "project":
		return projectTemplate, nil
	case "schema":
		return schemaTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o644)
}

const projectTemplate = `schema = "messages.toml"
output = "generated"
languages = ["c", "cpp", "python", "json"]
handshake = false

# [outputs]
# python = "tools/proto"
`

const schemaTemplate = `# Each top-level table is a message class; each sub-table is a message.
# Fields are "type" or { type = "...", min = ..., max = ... }.

[robot.drive]
left = { type = "i16", min = -1000, max = 1000 }
right = { type = "i16", min = -1000, max = 1000 }

[robot.stop]

[status.battery]
millivolts = "u16"
percent = { type = "u8", max = 100 }
label = { type = "chars", size = 8 }
temperature = "f32"
`
