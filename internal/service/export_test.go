package service

// SetAfterLoad installs a hook that runs between reading a paper row and
// caching it.
func (s *PaperService) SetAfterLoad(fn func(id string)) {
	s.afterLoad = fn
}
