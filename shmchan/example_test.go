package shmchan_test

import (
	"fmt"

	"github.com/joeycumines/corert/shmchan"
)

// Example_ringRoundTrip demonstrates the ring buffer's wrap-around and
// peek/fill semantics, independent of any actual shared memory mapping.
func Example_ringRoundTrip() {
	mem := make([]byte, 32+8) // headerSize + 8 bytes payload
	ring, err := shmchan.NewRing(mem)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	ring.Write([]byte("abcdef"))
	out := make([]byte, 6)
	ring.Read(out)
	fmt.Println(string(out))

	ring.Write([]byte("ghijkl")) // wraps, since read_index/write_index are both at 6 mod 8
	out2 := make([]byte, 6)
	ring.Read(out2)
	fmt.Println(string(out2))

	ring.FillAt(0, []byte("zz"))
	peek := make([]byte, 2)
	ring.PeekAt(0, peek)
	fmt.Println(string(peek))

	// Output:
	// abcdef
	// ghijkl
	// zz
}
