// Package software implements gpucore.GPUAdapter on the CPU.
//
// Buffers are plain word slices and each compute pipeline resolves to the
// Go kernel registered for its entry point in internal/kernel. Dispatches
// recorded in a compute pass are queued and executed in order by Submit,
// with the rows of every dispatch spread across a worker pool.
//
// The adapter is the reference implementation of the stroke passes and the
// fallback when no GPU is available:
//
//	a := software.New()
//	defer a.Destroy()
//	p, err := tegaki.NewPipeline(a)
package software
