package chainrpc

// IChainRpc is the finalized-transfer feed the observer consumes. The node
// guarantees finality for everything it serves: delivered events are never
// reorganized away, so the observer needs no rollback handling.
type IChainRpc interface {
	GetFinalizedHeight() (uint64, error)
	GetTransferEvents(blockNumber uint64) ([]TransferEvent, error)
}
