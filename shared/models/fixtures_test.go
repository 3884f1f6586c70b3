package models

import "time"

var fixedNow = time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
