package artifacts

import "time"

// DefaultTTL is how long a rendered WAV stays downloadable.
const DefaultTTL = 30 * time.Minute

// DefaultCleanupSchedule is the cron schedule of the cleanup job.
const DefaultCleanupSchedule = "@every 1m"
