/*
   cbmlink - Commodore disk drive access over IEC bus adapters
   Copyright (c) 2025, the cbmlink authors

   This file is part of cbmlink.

   cbmlink is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   cbmlink is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with cbmlink. If not, see <http://www.gnu.org/licenses/>.
*/

package cbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelManagerReset(t *testing.T) {
	assert := assert.New(t)

	m := NewChannelManager()

	ch, ok := m.Allocate(PurposeReset)
	assert.True(ok)
	assert.Equal(uint8(ChannelCtrl), ch)
	assert.True(m.InUse(ChannelCtrl))

	// channel 15 is taken, no second reset allocation
	_, ok = m.Allocate(PurposeReset)
	assert.False(ok)

	m.Free(ch)
	assert.False(m.InUse(ChannelCtrl))

	_, ok = m.Allocate(PurposeReset)
	assert.True(ok)
}

func TestChannelManagerNeverHandsOutCtrlForData(t *testing.T) {
	assert := assert.New(t)

	m := NewChannelManager()

	for ix := 0; ix < ChannelCtrl; ix++ {
		ch, ok := m.Allocate(PurposeFileRead)
		assert.True(ok)
		assert.Less(ch, uint8(ChannelCtrl))
	}

	// all data channels taken; channel 15 must not be the fallback
	_, ok := m.Allocate(PurposeFileWrite)
	assert.False(ok)
	assert.False(m.InUse(ChannelCtrl))
}

func TestChannelManagerNoDoubleAllocation(t *testing.T) {
	assert := assert.New(t)

	m := NewChannelManager()
	seen := map[uint8]bool{}

	for {
		ch, ok := m.Allocate(PurposeDirectory)
		if !ok {
			break
		}
		assert.False(seen[ch], "channel %d allocated twice", ch)
		seen[ch] = true
	}
	assert.Len(seen, ChannelCtrl)
}

func TestChannelManagerClear(t *testing.T) {
	assert := assert.New(t)

	m := NewChannelManager()
	m.Allocate(PurposeCommand)
	m.Allocate(PurposeReset)

	m.Reset()
	for ix := uint8(0); ix < NumChannels; ix++ {
		assert.False(m.InUse(ix))
	}

	// repeated resets are harmless
	m.Reset()

	ch, ok := m.Allocate(PurposeFileRead)
	assert.True(ok)
	assert.Equal(uint8(0), ch)
}

func TestChannelManagerOutOfRange(t *testing.T) {
	m := NewChannelManager()
	assert.False(t, m.InUse(NumChannels))
	m.Free(NumChannels) // must not panic
}
