package browser

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/prep-core/core/speech/browser"

var logger = otelslog.NewLogger(scopeName)
