/*
Copyright 2025 The gradcompose Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package density

import (
	"github.com/google/uuid"

	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Cached memoizes the value of an expensive density until one of the watched
// parameters reports a change or MakeDirty is called.
type Cached struct {
	id    uuid.UUID
	inner Density
	valid bool
	value float64
}

var _ Density = (*Cached)(nil)
var _ Dirtier = (*Cached)(nil)

// NewCached wraps d. The cache is cleared whenever a watched parameter fires.
func NewCached(d Density, watch ...parameter.Parameter) *Cached {
	c := &Cached{id: uuid.New(), inner: d}
	for _, p := range watch {
		p.AddListener(func(parameter.Parameter, int) { c.valid = false })
	}
	return c
}

func (c *Cached) ID() uuid.UUID    { return c.id }
func (c *Cached) Name() string     { return c.inner.Name() }
func (c *Cached) Terms() []Density { return []Density{c} }

func (c *Cached) LogValue() float64 {
	if !c.valid {
		c.value = c.inner.LogValue()
		c.valid = true
	}
	return c.value
}

// MakeDirty drops the cached value.
func (c *Cached) MakeDirty() {
	c.valid = false
	MakeDirty(c.inner)
}
