// Package tier maps a requested capacity to one of the fixed storage pools.
package tier

// Byte multiples are 1024-based to match how the appliance accounts quotas.
const (
	GiB int64 = 1 << 30
	TiB int64 = 1 << 40
)

// Assignment is the selected pool and the quota ceiling applied to the
// dataset created inside it. It only exists as an intermediate value within
// one provisioning attempt.
type Assignment struct {
	Pool       string
	QuotaBytes int64
}

// Overflow reports whether the requested capacity exceeded the largest tier
// and was capped. Callers flag this for review instead of rejecting.
func (a Assignment) Overflow(requestedGB float64) bool {
	return requestedGB > 1024
}

type threshold struct {
	upperGB    float64
	pool       string
	quotaBytes int64
}

// Thresholds are inclusive upper bounds evaluated top-down; first match wins.
var thresholds = []threshold{
	{upperGB: 100, pool: "student-50-100", quotaBytes: 100 * GiB},
	{upperGB: 500, pool: "student-500", quotaBytes: 500 * GiB},
	{upperGB: 1024, pool: "student-1000", quotaBytes: TiB},
}

// Select returns the tier for a requested capacity in GB. It is total over
// positive inputs and never fails; callers must reject non-positive values
// before invoking it.
func Select(requestedGB float64) Assignment {
	for _, t := range thresholds {
		if requestedGB <= t.upperGB {
			return Assignment{Pool: t.pool, QuotaBytes: t.quotaBytes}
		}
	}
	// Requests above the largest tier are capped, not rejected.
	last := thresholds[len(thresholds)-1]
	return Assignment{Pool: last.pool, QuotaBytes: last.quotaBytes}
}
