package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// constant 1, labelled with version and commit
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mop_build_info",
			Help: "Merchant onboarding API build information.",
		},
		[]string{"version", "commit"},
	)
)

// InitBuildInfo registers build_info once and sets it for version/commit.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit).Set(1)
}
