package scene

import "strings"

// preprocessSource rewrites scene source into plain zygomys syntax.
// Keyword arguments such as :height become the string "__kw_height",
// hyphenated names such as pipe-a become pipe_a, and ; comments become //
// comments. Quoted text passes through unchanged.
func preprocessSource(source string) string {
	r := &rewriter{src: source}
	r.out.Grow(len(source) + len(source)/4)
	for r.pos < len(r.src) {
		r.step()
	}
	return r.out.String()
}

// rewriter walks scene source one lexical element at a time.
type rewriter struct {
	src string
	pos int
	out strings.Builder
}

func (r *rewriter) peek(off int) byte {
	if i := r.pos + off; i >= 0 && i < len(r.src) {
		return r.src[i]
	}
	return 0
}

// emit copies src[r.pos:end] and advances past it.
func (r *rewriter) emit(end int) {
	r.out.WriteString(r.src[r.pos:end])
	r.pos = end
}

func (r *rewriter) step() {
	switch c := r.peek(0); {
	case c == '"':
		r.emit(r.quotedEnd('"', true))
	case c == '`':
		r.emit(r.quotedEnd('`', false))
	case c == ';':
		r.comment()
	case c == ':' && r.peek(1) == '=':
		r.emit(r.pos + 2)
	case c == ':' && isLetter(r.peek(1)):
		r.keyword()
	case c == '-' && isNameChar(r.peek(-1)) && isLetter(r.peek(1)):
		r.out.WriteByte('_')
		r.pos++
	default:
		r.emit(r.pos + 1)
	}
}

// quotedEnd returns the offset just past the literal opened at r.pos.
// An unterminated literal runs to the end of the source.
func (r *rewriter) quotedEnd(delim byte, escapes bool) int {
	i := r.pos + 1
	for i < len(r.src) && r.src[i] != delim {
		if escapes && r.src[i] == '\\' {
			i++
		}
		i++
	}
	return min(i+1, len(r.src))
}

// comment turns a run of semicolons into // and keeps the comment text.
func (r *rewriter) comment() {
	r.out.WriteString("//")
	for r.peek(0) == ';' {
		r.pos++
	}
	end := strings.IndexByte(r.src[r.pos:], '\n')
	if end < 0 {
		end = len(r.src) - r.pos
	}
	r.emit(r.pos + end)
}

// keyword quotes the :name at r.pos with kwPrefix. Hyphens inside a
// keyword are kept, so :center-plane stays one keyword.
func (r *rewriter) keyword() {
	start := r.pos + 1
	end := start
	for end < len(r.src) && (isNameChar(r.src[end]) || r.src[end] == '-') {
		end++
	}
	r.out.WriteString(`"` + kwPrefix + r.src[start:end] + `"`)
	r.pos = end
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
