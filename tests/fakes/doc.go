// Package fakes provides test doubles for secretcache collaborators.
//
// This package contains fake implementations of the remote store, cache
// backend, cipher and clock, plus SDK-level fakes for the AWS and GCP
// clients used by internal/providers. Fakes are manually implemented (not
// generated) to provide precise control over test behavior.
//
// Usage:
//
//	remote := fakes.NewFakeRemoteStore()
//	remote.AddRotatingSecret("prod/db", `{"password":"x"}`, next)
//	c, _ := secretcache.New(remote, fakes.NewFakeBackend(), &fakes.FakeCipher{},
//	    secretcache.WithClock(fakes.NewFakeClock(now)))
package fakes
