// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package process

import "time"

// Line is a timestamped log line
type Line struct {
	Timestamp time.Time
	Data      string
}
