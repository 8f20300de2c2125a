package scraper

// Strategy tries to produce a value from an element. ok=false means "try the next one".
type Strategy[T any] func(el Element) (value T, ok bool)

// FirstOf runs strategies in rank order and returns the first success.
func FirstOf[T any](el Element, strategies ...Strategy[T]) (T, bool) {
	for _, strategy := range strategies {
		if v, ok := strategy(el); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// TextAt yields the non-blank text of the first descendant matching selector.
func TextAt(selector string) Strategy[string] {
	return func(el Element) (string, bool) {
		found, ok := el.Find(selector)
		if !ok {
			return "", false
		}
		text := found.Text()
		return text, text != ""
	}
}

// AttrAt yields a non-blank attribute of the first descendant matching selector.
func AttrAt(selector, attr string) Strategy[string] {
	return func(el Element) (string, bool) {
		found, ok := el.Find(selector)
		if !ok {
			return "", false
		}
		v, ok := found.Attr(attr)
		v = normaliseText(v)
		return v, ok && v != ""
	}
}

// OwnAttr yields a non-blank attribute of the element itself.
func OwnAttr(attr string) Strategy[string] {
	return func(el Element) (string, bool) {
		v, ok := el.Attr(attr)
		v = normaliseText(v)
		return v, ok && v != ""
	}
}

// TextStrategies builds one TextAt strategy per selector, keeping order.
func TextStrategies(selectors []string) []Strategy[string] {
	strategies := make([]Strategy[string], 0, len(selectors))
	for _, sel := range selectors {
		strategies = append(strategies, TextAt(sel))
	}
	return strategies
}

// Then feeds a successful string result through parse; a parse miss counts as a miss.
func Then[T any](s Strategy[string], parse func(string) (T, bool)) Strategy[T] {
	return func(el Element) (T, bool) {
		text, ok := s(el)
		if !ok {
			var zero T
			return zero, false
		}
		return parse(text)
	}
}

// Locate returns the elements matched by the first selector yielding at
// least one match, together with that selector.
func Locate(page Page, selectors []string) ([]Element, string) {
	for _, sel := range selectors {
		if elements := page.FindAll(sel); len(elements) > 0 {
			return elements, sel
		}
	}
	return nil, ""
}
