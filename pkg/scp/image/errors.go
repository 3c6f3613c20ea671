/*
   scpwrite - SuperCard Pro flux image writer
   Copyright (c) 2022, the scpwrite authors

   This file is part of scpwrite.

   scpwrite is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   scpwrite is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with scpwrite. If not, see <http://www.gnu.org/licenses/>.
*/

package image

import "fmt"

/*
	FormatError indicates that the image data does not follow the SCP
	container layout, e.g. a wrong signature, a truncated stream, or a
	track record whose fields cannot be trusted. It is fatal; a damaged
	image is never partially written.
*/
type FormatError struct {
	msg string
}

//
func (e *FormatError) Error() string {
	return e.msg
}

//
func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{msg: fmt.Sprintf(format, args...)}
}

/*
	IntegrityError indicates that the image is well-formed but its
	declared checksum does not match the payload.
*/
type IntegrityError struct {
	msg string
}

//
func (e *IntegrityError) Error() string {
	return e.msg
}

//
func integrityErrorf(format string, args ...interface{}) *IntegrityError {
	return &IntegrityError{msg: fmt.Sprintf(format, args...)}
}
