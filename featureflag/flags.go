package featureflag

type Flag string

const (
	FlagDisablePartitions       Flag = "DISABLE_PARTITIONS"
	FlagDisableParallelRecenter Flag = "DISABLE_PARALLEL_RECENTER"
	FlagDisableChangeTracking   Flag = "DISABLE_CHANGE_TRACKING"
)
