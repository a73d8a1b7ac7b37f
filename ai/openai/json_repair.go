// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import "unicode"

// repairJSON fixes the slips chat models most often make in span responses:
// object keys with one or both quotes missing, and trailing commas before a
// closing bracket. String contents are copied untouched.
func repairJSON(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src)+16)
	inString, escaped, expectKey := false, false, false

	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			expectKey = false
			out = append(out, ch)
		case ch == ',' && closesNext(src, i+1):
			// trailing comma, dropped
		case ch == '{' || ch == ',':
			expectKey = true
			out = append(out, ch)
		case expectKey && (isLetter(ch) || ch == '_'):
			end := i
			for end < len(src) && isKeyRune(src[end]) {
				end++
			}
			next := end
			if next < len(src) && src[next] == '"' {
				next++
			}
			if colon := skipSpace(src, next); colon < len(src) && src[colon] == ':' {
				out = append(out, '"')
				out = append(out, src[i:end]...)
				out = append(out, '"')
				i = next - 1
			} else {
				out = append(out, src[i:end]...)
				i = end - 1
			}
			expectKey = false
		default:
			if !unicode.IsSpace(ch) {
				expectKey = false
			}
			out = append(out, ch)
		}
	}
	return string(out)
}

func isKeyRune(r rune) bool {
	return isLetter(r) || r == '_' || (r >= '0' && r <= '9')
}

func skipSpace(src []rune, from int) int {
	for from < len(src) && unicode.IsSpace(src[from]) {
		from++
	}
	return from
}

// closesNext reports whether the next non-space rune closes an object or array.
func closesNext(src []rune, from int) bool {
	j := skipSpace(src, from)
	return j < len(src) && (src[j] == '}' || src[j] == ']')
}
