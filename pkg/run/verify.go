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

package run

import (
	"fmt"
	"io/ioutil"

	"github.com/fluxlab/scpwrite/pkg/scp/image"
)

//
func NewVerify() *Verify {

	v := &Verify{}
	v.Runner = *NewRunner(
		"verify -i|--input {file}",
		"verify flux image integrity",
		`
Use the verify command to check the checksum of an SCP flux image. Images that
carry the writable flag, or that declare a checksum of zero, are unsealed and
always pass.`,
		runnerHelpEpilogue, v.Run)

	v.AddStringSetting(&v.Input, "input", "i", "", "",
		"flux image input file", true)

	return v
}

//
type Verify struct {
	//
	Runner
	//
	Input string
}

//
func (v *Verify) Run() error {

	v.ParseSettings()

	data, err := ioutil.ReadFile(v.Input)
	if err != nil {
		return err
	}

	img, err := image.ParseContainer(data)
	if err != nil {
		return fmt.Errorf("%s: %v", v.Input, err)
	}

	if img.Writable() || img.Checksum == 0 {
		fmt.Printf("%s: unsealed image, nothing to verify\n", v.Input)
		return nil
	}

	if err := image.VerifyChecksum(data, img.Checksum, false); err != nil {
		return fmt.Errorf("%s: %v", v.Input, err)
	}

	fmt.Printf("%s: checksum ok\n", v.Input)
	return nil
}
