// Package loader provides pretrained weight sources for SSD models.
//
// A WeightSource hands out the parameter tensors of one layer by layer
// name, in the order the layer's Parameters are declared (weight, then
// bias). Two sources are provided:
//   - SafeTensorsSource: a SafeTensors file with tensors named
//     "<layer>.weight" and "<layer>.bias" (F32 or F64)
//   - MapSource: an in-memory map, handy for tests and for weights
//     produced by another model instance
//
// Example:
//
//	src, err := loader.OpenSafeTensors("vgg16_notop.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	ws, err := src.LayerWeights("block1_conv1") // [kernel, bias]
package loader
