package assets

import "embed"

//go:embed system_instruction.txt
var SystemInstruction string

//go:embed chat.html
var Dir embed.FS
