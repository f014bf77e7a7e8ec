// Copyright 2015 Google Inc. All Rights Reserved.
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

package memfs

import (
	"time"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/tree"
	"github.com/google/gomemfs/vfschan"
	"github.com/google/gomemfs/vfserr"
	"github.com/google/gomemfs/watch"
	"github.com/jacobsa/timeutil"
)

// DefaultBlockSize is the ByteStore block size used when a Configuration
// does not set one.
const DefaultBlockSize = 8192

// Configuration gathers the options needed to build a FileSystemView.
// This is deliberately a plain struct rather than a fluent builder,
// following the simpler of the two common construction patterns rather
// than inventing one.
type Configuration struct {
	// PathType selects the Unix or Windows path grammar. Required.
	PathType pathutil.PathType

	// Roots are the user-visible root strings (e.g. "/" or "C:\", "D:\").
	// Must be non-empty and well-formed for PathType.
	Roots []string

	// WorkingDirectory is an absolute path, created implicitly at
	// construction if it does not already exist under Roots.
	WorkingDirectory string

	// Features gates optional behavior: SYMBOLIC_LINKS, LINKS,
	// SECURE_DIRECTORY_STREAMS, GROUPS.
	Features Features

	// AttributeViews selects which attribute providers are registered.
	// "basic" is always included regardless of what is listed here.
	AttributeViews []string

	// NameCanonicalization composes, in order, the Name equality
	// transform. Empty means no canonicalization.
	NameCanonicalization []pathutil.Normalizer

	// BlockSize is the ByteStore block size in bytes. Zero means
	// DefaultBlockSize.
	BlockSize int

	// PollInterval is the watch service's background poll tick. Zero
	// means watch.DefaultPollInterval.
	PollInterval time.Duration

	// Clock supplies timestamps for inode metadata and watch polling.
	// Nil means timeutil.RealClock().
	Clock timeutil.Clock

	// Executor dispatches AsyncFileChannel operations. Nil means
	// vfschan.GoroutineExecutor{}.
	Executor vfschan.Executor
}

// UnixConfiguration returns a preset analogous to jimfs's
// Configuration.unix(): a single "/" root, a "/work" working directory,
// both hard and symbolic links enabled, the basic/owner/posix/unix
// attribute views, and no name canonicalization (POSIX filenames compare
// byte-for-byte). This is a constructor convenience, not new behavior.
func UnixConfiguration() Configuration {
	return Configuration{
		PathType:         pathutil.Unix,
		Roots:            []string{"/"},
		WorkingDirectory: "/work",
		Features:         Features{SymbolicLinks: true, Links: true, SecureDirectoryStreams: true, Groups: true},
		AttributeViews:   []string{"basic", "owner", "posix", "unix"},
		BlockSize:        DefaultBlockSize,
	}
}

// WindowsConfiguration returns a preset analogous to jimfs's
// Configuration.windows(): a single "C:\" root, a "C:\work" working
// directory, symbolic links enabled (hard links disabled, matching the
// common default for an in-memory Windows-flavored filesystem), the
// basic/owner/dos/acl attribute views, and ASCII case-folding (Windows
// names compare case-insensitively).
func WindowsConfiguration() Configuration {
	return Configuration{
		PathType:             pathutil.Windows,
		Roots:                []string{`C:\`},
		WorkingDirectory:     `C:\work`,
		Features:             Features{SymbolicLinks: true, Links: false, SecureDirectoryStreams: true},
		AttributeViews:       []string{"basic", "owner", "dos", "acl"},
		NameCanonicalization: []pathutil.Normalizer{pathutil.CaseFoldASCII},
		BlockSize:            DefaultBlockSize,
	}
}

// buildProviders constructs the attribute-provider set for the requested
// view names, always including basic.
func buildProviders(views []string) []inode.Provider {
	wanted := map[string]bool{"basic": true}
	for _, v := range views {
		wanted[v] = true
	}

	var providers []inode.Provider
	// Fixed registration order so SetInitialAttributes/ReadAttributes("*")
	// are deterministic regardless of the order AttributeViews was given
	// in, and so that an inherited view (e.g. posix needing owner) is
	// registered even if the caller only names the dependent view — the
	// inheriting provider still answers reads for its own owned names
	// either way, but registering the base views keeps get/set on them
	// directly working too.
	order := []string{"basic", "owner", "posix", "unix", "dos", "acl", "user"}
	// Each view in order comes after the views it inherits, so one pass
	// from the end pulls in every inherited view of a wanted view.
	inherits := map[string][]string{
		"posix": inode.PosixProvider{}.Inherits(),
		"unix":  (*inode.UnixProvider)(nil).Inherits(),
		"dos":   inode.DosProvider{}.Inherits(),
		"acl":   inode.AclProvider{}.Inherits(),
	}
	for i := len(order) - 1; i >= 0; i-- {
		if wanted[order[i]] {
			for _, v := range inherits[order[i]] {
				wanted[v] = true
			}
		}
	}
	for _, name := range order {
		if !wanted[name] {
			continue
		}
		switch name {
		case "basic":
			providers = append(providers, inode.BasicProvider{})
		case "owner":
			providers = append(providers, inode.OwnerProvider{})
		case "posix":
			providers = append(providers, inode.PosixProvider{})
		case "unix":
			providers = append(providers, inode.NewUnixProvider())
		case "dos":
			providers = append(providers, inode.DosProvider{})
		case "acl":
			providers = append(providers, inode.AclProvider{})
		case "user":
			providers = append(providers, inode.UserProvider{})
		}
	}
	return providers
}

// New builds a FileSystemView from cfg: it constructs the PathService,
// the attribute Service, an empty FileTree with cfg.Roots linked under
// its super-root, a WatchService, and creates the working directory if
// it does not already exist.
func New(cfg Configuration) (*FileSystemView, error) {
	if cfg.PathType == nil {
		return nil, vfserr.NewError(vfserr.InvalidArgument, "configure", "path type required")
	}
	if len(cfg.Roots) == 0 {
		return nil, vfserr.NewError(vfserr.InvalidArgument, "configure", "at least one root required")
	}
	for _, r := range cfg.Roots {
		if !cfg.PathType.IsValidRoot(r) {
			return nil, vfserr.NewError(vfserr.InvalidPath, "configure", r)
		}
	}

	blockSize := cfg.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock()
	}
	executor := cfg.Executor
	if executor == nil {
		executor = vfschan.GoroutineExecutor{}
	}

	normalizer := pathutil.ComposeNormalizers(cfg.NameCanonicalization...)
	ps := pathutil.NewPathService(cfg.PathType, normalizer)
	attrs := inode.NewService(buildProviders(cfg.AttributeViews)...)

	ft := tree.New(attrs, clock, blockSize, cfg.Features.treeFeatures())
	for _, r := range cfg.Roots {
		// Register the root under the same Name that Parse gives it, so
		// absolute-path lookups find it.
		rp, err := ps.Parse(r)
		if err != nil {
			return nil, err
		}
		rootName, _ := rp.Root()
		if _, err := ft.AddRoot(rootName); err != nil {
			return nil, err
		}
	}

	view := &FileSystemView{
		tree:       ft,
		ps:         ps,
		features:   cfg.Features,
		watch:      watch.NewWatchService(clock, cfg.PollInterval),
		executor:   executor,
		channels:   make(map[invalidator]struct{}),
		lockTables: make(map[inode.ID]*vfschan.LockTable),
	}

	wd := cfg.WorkingDirectory
	if wd == "" {
		wd = cfg.Roots[0]
	}
	wdPath, err := ps.Parse(wd)
	if err != nil {
		return nil, err
	}
	if !wdPath.IsAbsolute() {
		return nil, vfserr.NewError(vfserr.InvalidArgument, "configure", wd)
	}
	wdInode, err := view.mkdirAllLocked(ft.SuperRoot(), wdPath)
	if err != nil {
		return nil, err
	}
	view.cwdPath = wdPath
	view.cwd = wdInode

	return view, nil
}
