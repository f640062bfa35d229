/*
Copyright 2025 The virt-inventory Authors

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

package resolverfake

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// Expectation is a single expected ResolveIPv4 call.
type Expectation = func(ctx context.Context, vmName string) (string, error)

// Fake is a lease resolver fed from a queue of expectations.
type Fake struct {
	t            *testing.T
	expectations []Expectation
	counter      int
}

// New returns a fake resolver that fails the test when called more often
// than expectations were registered.
func New(t *testing.T, expectations ...Expectation) *Fake {
	t.Helper()

	return &Fake{t: t, expectations: expectations}
}

func (f *Fake) ResolveIPv4(ctx context.Context, vmName string) (string, error) {
	f.t.Helper()

	if f.counter >= len(f.expectations) {
		f.t.Fatalf("unexpected ResolveIPv4 call %d for %q", f.counter, vmName)
	}

	counter := f.counter
	f.counter++

	return f.expectations[counter](ctx, vmName)
}

// AssertExpectations verifies every registered expectation was consumed.
func (f *Fake) AssertExpectations() {
	f.t.Helper()

	if f.counter != len(f.expectations) {
		f.t.Fatalf("expected %d ResolveIPv4 calls, got %d", len(f.expectations), f.counter)
	}
}

// WithIP returns an expectation resolving to the given address.
func WithIP(ip string) Expectation {
	return func(context.Context, string) (string, error) {
		return ip, nil
	}
}

// WithError returns an expectation failing with the given error.
func WithError(err error) Expectation {
	return func(context.Context, string) (string, error) {
		return "", err
	}
}

// DomainInfo is a fake domain identity source recording its lookups.
type DomainInfo struct {
	UUID  uuid.UUID
	Err   error
	Calls []string
}

func (f *DomainInfo) DomainUUID(_ context.Context, vmName string) (uuid.UUID, error) {
	f.Calls = append(f.Calls, vmName)

	return f.UUID, f.Err
}
