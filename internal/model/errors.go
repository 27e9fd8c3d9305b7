package model

import "errors"

// Input-contract errors. Data conditions the pipeline tolerates (empty input,
// short history, zero denominators, contracts missing greeks) are not errors;
// they surface as empty frames, undefined values or AnalysisResult.NoData.
var (
	ErrUnorderedBars = errors.New("bar timestamps not strictly increasing")
	ErrInvalidBar    = errors.New("invalid bar values")
	ErrMissingColumn = errors.New("required column missing")
)

// ErrNoData is what AnalysisResult.Err reports for a snapshot without contracts.
var ErrNoData = errors.New("options snapshot has no data")
