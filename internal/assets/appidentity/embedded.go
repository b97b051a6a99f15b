// Package appidentityassets carries the app identity inside the binary so
// it works when run outside the repository.
package appidentityassets

import _ "embed"

// YAML mirrors .fulmen/app.yaml; appid tests fail when the two drift.
//
//go:embed app.yaml
var YAML []byte
