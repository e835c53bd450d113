package agenda

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffHTML renders a standalone page highlighting how an agenda changed
// between runs, with insertions and deletions marked up inline. The
// comparison runs over normalized text, the same form change detection
// fingerprints.
func DiffHTML(before, after []byte, title string) []byte {
	if title == "" {
		title = "Changed Agenda"
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(Text(before), Text(after), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta http-equiv="content-type" content="text/html; charset=utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>
`, title, title, dmp.DiffPrettyHtml(diffs))
	return []byte(page)
}
