package gc

// CollectorShutdownError reports an allocation attempted after Shutdown
// (spec §4.D "Allocation in a torn-down collector returns CollectorShutdown").
type CollectorShutdownError struct{}

func (*CollectorShutdownError) Error() string {
	return "gc: allocation attempted on a shut-down collector"
}
