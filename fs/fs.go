package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS
