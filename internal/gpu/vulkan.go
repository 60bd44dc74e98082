//go:build !nogpu

package gpu

// Import Vulkan backend so it registers via init().
// Building with -tags nogpu leaves VulkanPlatform unsupported.
import _ "github.com/gogpu/wgpu/hal/vulkan"
