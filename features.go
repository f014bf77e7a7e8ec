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

import "github.com/google/gomemfs/tree"

// Features is the full "features" configuration option:
// {SYMBOLIC_LINKS, LINKS, SECURE_DIRECTORY_STREAMS, GROUPS}. Only the
// first two gate tree.FileTree behavior (symlink/hard-link creation);
// SecureDirectoryStreams and Groups gate façade-level surface this
// package exposes (whether NewSecureDirectoryStream is offered, and
// whether the posix view's group principal is settable), so they live
// here rather than on tree.Features.
type Features struct {
	SymbolicLinks          bool
	Links                  bool
	SecureDirectoryStreams bool
	Groups                 bool
}

func (f Features) treeFeatures() tree.Features {
	return tree.Features{SymbolicLinks: f.SymbolicLinks, Links: f.Links}
}
