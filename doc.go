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

// Package memfs implements the core of a process-local, in-memory
// filesystem: an inode graph with hard-link and symlink semantics, POSIX-
// and Windows-flavored path resolution, seekable byte channels with
// advisory locks, and a polling change-watch service.
//
// The primary elements of interest are:
//
//   - FileSystemView, which binds a *tree.FileTree, a working directory and
//     a pathutil.PathService and is the entry point for path-based
//     operations.
//
//   - Configuration and the Unix/Windows presets, which describe how a new
//     FileSystemView is built.
//
// Multiple FileSystemView values may coexist in the same process, each
// with its own roots, working directory and name-comparison policy. A Path
// does not record which view built it; passing one view's path to another
// resolves it in the receiving view's tree, with no CROSS_DEVICE check.
//
// This package does not implement durable persistence, network
// transparency, or disk quotas; AsyncFileChannel dispatches onto a
// configurable Executor rather than true kernel-level asynchronous I/O.
package memfs
