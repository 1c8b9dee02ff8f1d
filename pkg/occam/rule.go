// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package occam

import "context"

// Rule is the entrypoint contract the runtime invokes once per
// non-suppressed message. Rule modules are ordinary compiled Go code: they
// are constructed once (at rule-load time, via whatever constructor the
// rule author defines) and Run is called once per message thereafter —
// there is no source-rewrite step involved.
type Rule interface {
	Run(ctx context.Context, msg Message, p *Primitives) error
}
