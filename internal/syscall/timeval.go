package syscall

import "encoding/binary"

// TimeVal is the user-visible layout for get_time: two little-endian
// uint64 words, seconds then microseconds.
type TimeVal struct {
	Sec  uint64
	USec uint64
}

// Bytes encodes t in the wire layout get_time writes into user memory.
func (t TimeVal) Bytes() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], t.Sec)
	binary.LittleEndian.PutUint64(buf[8:16], t.USec)
	return buf
}

// MaxSyscallNum bounds the per-task syscall counters task_info reports,
// matching internal/task.MaxSyscallNum.
const MaxSyscallNum = 500

// TaskInfo is the user-visible layout for task_info: status, the
// syscall-count table, and total running time in milliseconds.
type TaskInfo struct {
	Status       uint32
	SyscallTimes [MaxSyscallNum]uint32
	TimeMS       uint64
}

// Bytes encodes ti in the wire layout task_info writes into user memory.
func (ti TaskInfo) Bytes() []byte {
	buf := make([]byte, 4+4*MaxSyscallNum+8)
	binary.LittleEndian.PutUint32(buf[0:4], ti.Status)
	for i, c := range ti.SyscallTimes {
		off := 4 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], c)
	}
	off := 4 + 4*MaxSyscallNum
	binary.LittleEndian.PutUint64(buf[off:off+8], ti.TimeMS)
	return buf
}
