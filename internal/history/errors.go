// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package history

import "errors"

var (
	ErrNotFound = errors.New("job not found")
	ErrNoID     = errors.New("job summary without job id")
)
