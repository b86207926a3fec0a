package error

// GenericError is the contract every typed application error fulfils so the
// REST layer can map it to an HTTP response without switching on concrete types.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
