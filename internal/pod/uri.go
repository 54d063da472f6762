/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package pod

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Factory builds a POD from a parsed backend URI. Registered per scheme
// in Backends.
type Factory func(u *url.URL) (POD, error)

// Backends maps a URI scheme to the factory that constructs its POD.
// Further schemes can be added to this map from an init function; the
// ceph-tagged CephPOD does not register one.
var Backends = map[string]Factory{
	"file":   fileFactory,
	"memory": memoryFactory,
	"s3":     s3Factory,
}

func fileFactory(u *url.URL) (POD, error) {
	dir := u.Path
	if dir == "" {
		dir = u.Opaque
	}
	return NewFilePOD(dir)
}

func memoryFactory(u *url.URL) (POD, error) {
	budget := 0
	if b := u.Query().Get("budget"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil {
			return nil, fmt.Errorf("pod: invalid memory:// budget %q: %w", b, err)
		}
		budget = n
	}
	if budget > 0 {
		return NewBoundedMemPOD(budget), nil
	}
	return NewMemPOD(), nil
}

func s3Factory(u *url.URL) (POD, error) {
	cfg := S3Config{
		Bucket: u.Host,
		Prefix: strings.TrimPrefix(u.Path, "/"),
	}
	q := u.Query()
	cfg.Region = q.Get("region")
	cfg.Endpoint = q.Get("endpoint")
	cfg.ForcePathStyle = q.Get("path-style") == "true"
	cfg.AccessKey = q.Get("access-key")
	cfg.SecretKey = q.Get("secret-key")
	return NewS3POD(cfg), nil
}

// FromURI builds a POD from a URI string. "+" composes a local cache in
// front of a remote authoritative backend, e.g.
// "memory://?budget=1048576+s3://bucket/prefix" builds a bounded
// in-memory cache overlaying an S3 bucket.
func FromURI(raw string) (POD, error) {
	if i := strings.Index(raw, "+"); i >= 0 {
		local, err := FromURI(raw[:i])
		if err != nil {
			return nil, err
		}
		remote, err := FromURI(raw[i+1:])
		if err != nil {
			return nil, err
		}
		return NewCachePOD(local, remote), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("pod: invalid URI %q: %w", raw, err)
	}
	factory, ok := Backends[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("pod: unknown backend scheme %q", u.Scheme)
	}
	return factory(u)
}
