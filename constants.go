package beamformer

import "github.com/ehrlich-b/beamformer-shm/internal/constants"

// Re-export constants for public API
const (
	SharedMemoryVersion            = constants.SharedMemoryVersion
	RegionSize                     = constants.RegionSize
	QueueCapacity                  = constants.QueueCapacity
	MaxParameterBlockSlots         = constants.MaxParameterBlockSlots
	DefaultReservedParameterBlocks = constants.DefaultReservedParameterBlocks
	MaxChannelCount                = constants.MaxChannelCount
	MaxComputeShaderStages         = constants.MaxComputeShaderStages
	FilterSlots                    = constants.FilterSlots
	ScratchAlignment               = constants.ScratchAlignment
	ExportPipeNameSize             = constants.ExportPipeNameSize
	DefaultRegionName              = constants.DefaultRegionName
	DefaultExportPipeDir           = constants.DefaultExportPipeDir
	DefaultExportPipeName          = constants.DefaultExportPipeName
	TimeoutInfinite                = constants.TimeoutInfinite
	TimeoutNone                    = constants.TimeoutNone
)
