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
	"sync"
)

// ChannelPurpose states what a channel allocation is for. Channel 15 can
// only ever be allocated for PurposeReset.
type ChannelPurpose int

//
const (
	PurposeReset ChannelPurpose = iota
	PurposeDirectory
	PurposeFileRead
	PurposeFileWrite
	PurposeCommand
)

//
type channelAlloc struct {
	purpose  ChannelPurpose
	sequence uint64
}

/*
	ChannelManager tracks which of the 16 logical channels on a drive are in
	use. It does not talk to hardware; its sole invariant is that no two
	live allocations share a channel, and that channel 15 is handed out for
	control purposes only.
*/
type ChannelManager struct {
	mu       sync.Mutex
	channels [NumChannels]*channelAlloc
	// starts at 1 so sequence 0 never denotes a live allocation
	nextSequence uint64
}

//
func NewChannelManager() *ChannelManager {
	return &ChannelManager{nextSequence: 1}
}

/*
	Allocate reserves a channel for the given purpose and returns its
	number. For PurposeReset only channel 15 is eligible; for all other
	purposes channels 0-14 are scanned for the first free slot. The second
	return value is false when no eligible channel is free.
*/
func (m *ChannelManager) Allocate(purpose ChannelPurpose) (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if purpose == PurposeReset {
		if m.channels[ChannelCtrl] == nil {
			m.channels[ChannelCtrl] = m.newAlloc(purpose)
			return ChannelCtrl, true
		}
		return 0, false
	}

	for ix := 0; ix < ChannelCtrl; ix++ {
		if m.channels[ix] == nil {
			m.channels[ix] = m.newAlloc(purpose)
			return uint8(ix), true
		}
	}
	return 0, false
}

//
func (m *ChannelManager) newAlloc(purpose ChannelPurpose) *channelAlloc {
	seq := m.nextSequence
	m.nextSequence++
	return &channelAlloc{purpose: purpose, sequence: seq}
}

// Free releases a single channel allocation.
func (m *ChannelManager) Free(channel uint8) {
	if channel >= NumChannels {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channel] = nil
}

// InUse reports whether the channel is currently allocated.
func (m *ChannelManager) InUse(channel uint8) bool {
	if channel >= NumChannels {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[channel] != nil
}

// Reset clears all allocations; calling it repeatedly is harmless.
func (m *ChannelManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ix := range m.channels {
		m.channels[ix] = nil
	}
}
