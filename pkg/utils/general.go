package utils

// PanicIfNeeded aborts the current request when err is set; the REST recovery
// middleware turns the panic into the matching HTTP response.
func PanicIfNeeded(err any, message ...string) {
	if err != nil {
		if len(message) > 0 {
			panic(message[0])
		}
		panic(err)
	}
}
