package types

// Result codes carried in TxOutcome.Code, GateVerdict.Code and
// StateQueryResult.Code. Values are part of the replicated outcome
// and must never be renumbered.
const (
	CodeOK uint32 = 0

	// Envelope and admission failures.
	CodeMalformedTx  uint32 = 1
	CodeBadSignature uint32 = 2
	CodeBadNonce     uint32 = 3
	CodeUnknownCall  uint32 = 4

	// Issuance gate.
	CodeDelayNotFinished   uint32 = 10
	CodeSomethingWentWrong uint32 = 11
	CodeAmountTooLarge     uint32 = 12

	// Currency.
	CodeInsufficientBalance uint32 = 20
	CodeBelowExistential    uint32 = 21
	CodeAccountMissing      uint32 = 22
	CodeBalanceOverflow     uint32 = 23

	// Placeholder slot.
	CodeNoneValue       uint32 = 30
	CodeStorageOverflow uint32 = 31

	// Queries.
	CodeUnknownPath   uint32 = 40
	CodeBadQueryData  uint32 = 41
	CodeNotFound      uint32 = 42
	CodeHeightMissing uint32 = 43
)
