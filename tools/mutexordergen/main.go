// Copyright 2024 The Auralock Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Binary mutexordergen emits the Order enumeration consumed by
// pkg/sync/locking. The capability list below is the source of truth
// for the lock hierarchy; edit it and regenerate rather than editing
// the generated file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"text/template"
)

// categories is the lock hierarchy, lowest order first. Appending is
// always safe; reordering or removing entries changes the meaning of
// every recorded order number.
var categories = []string{
	"Spatializer",
	"PolicyEffects",
	"EffectHandle",
	"EffectPolicy",
	"PolicyService",
	"CommandThread",
	"Command",
	"ClientPolicy",
	"Engine",
	"DeviceEffectManager",
	"DeviceEffectProxy",
	"DeviceEffectHandle",
	"PatchCommandThread",
	"Stream",
	"EngineClient",
	"EffectChain",
	"EffectModule",
	"Hardware",
	"LoudnessReporter",
	"UnregisteredWriters",
	"AsyncCallback",
	"ConfigEvent",
	"TrackMetadata",
	"PatchRecordRead",
	"PatchListener",
	"TrackCallback",
	"NotificationClients",
	"MediaLogNotifier",
}

var tmpl = template.Must(template.New("order").Parse(
	`// Copyright 2024 The Auralock Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Code generated by tools/mutexordergen. DO NOT EDIT.

package locking

// Order is the position of a mutex category in the global lock
// hierarchy. A goroutine may only acquire mutexes in strictly
// increasing order.
//
// The enumeration is dense and fixed at build time; regenerate with
// tools/mutexordergen after editing the capability list.
type Order uint32

const (
{{- range $i, $name := .Categories}}
	Order{{$name}}{{if eq $i 0}} Order = iota{{end}}
{{- end}}

	// OrderOther is the sentinel category for mutexes that have not
	// been placed in the hierarchy. It is the highest order, so an
	// unplaced mutex may be acquired after any placed one.
	OrderOther

	// OrderCount is the number of categories, including OrderOther.
	OrderCount
)

// orderNames maps an Order to its name, parallel to the constants
// above.
var orderNames = [OrderCount]string{
{{- range .Categories}}
	"{{.}}",
{{- end}}
	"Other",
}

// String returns the category name.
func (o Order) String() string {
	if o < OrderCount {
		return orderNames[o]
	}
	return "invalid"
}
`))

func generate() ([]byte, error) {
	seen := make(map[string]bool)
	for _, c := range categories {
		if seen[c] {
			return nil, fmt.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Categories []string }{categories}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func main() {
	out := flag.String("out", "", "output file path; stdout if empty")
	flag.Parse()

	src, err := generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mutexordergen: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		os.Stdout.Write(src)
		return
	}
	if err := os.WriteFile(*out, src, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "mutexordergen: %v\n", err)
		os.Exit(1)
	}
}
