package telemetry

// API is what components report through instead of logging directly, so
// that tests can assert on what was reported (see Recorder).
type API interface {
	// ReportBroken reports a component that failed in a way somebody should
	// look at.
	//
	// `id` names the component and method, not the failing line, e.g. an
	// HTTP failure during the medicover client's login is `client.login`
	// with the error as a param. Packages keep their ids in `report_...`
	// constants.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not break anything.
	ReportWarning(id string, params ...any)

	// ReportDebug reports details only useful while debugging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports how many of something were seen by one call.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id reported through it with a namespace, so
// "client.login" reported through NewScopedAPI("medicover", ...) becomes
// "medicover: client.login".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

// Sub nests another namespace under this one.
func (s ScopedAPI) Sub(namespace string) ScopedAPI {
	return ScopedAPI{namespace: s.scoped(namespace), inner: s.inner}
}

func (s ScopedAPI) scoped(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
