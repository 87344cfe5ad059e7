// SPDX-License-Identifier: Unlicense OR MIT

package gl

type (
	Attrib uint
	Enum   uint
)

const (
	ACTIVE_UNIFORM_BLOCKS       = 0x8A36
	ALL_BARRIER_BITS            = 0xffffffff
	ARRAY_BUFFER                = 0x8892
	BYTE                        = 0x1400
	CLAMP_TO_EDGE               = 0x812f
	COLOR_ATTACHMENT0           = 0x8ce0
	COLOR_BUFFER_BIT            = 0x4000
	COMPILE_STATUS              = 0x8b81
	COMPUTE_SHADER              = 0x91B9
	COMPUTE_SHADER_BIT          = 0x00000020
	DRAW_FRAMEBUFFER            = 0x8CA9
	DYNAMIC_DRAW                = 0x88E8
	ELEMENT_ARRAY_BUFFER        = 0x8893
	EXTENSIONS                  = 0x1f03
	FALSE                       = 0
	FLOAT                       = 0x1406
	FRAGMENT_SHADER             = 0x8b30
	FRAGMENT_SHADER_BIT         = 0x00000002
	FRAMEBUFFER                 = 0x8d40
	FRAMEBUFFER_COMPLETE        = 0x8cd5
	GEOMETRY_SHADER             = 0x8DD9
	GEOMETRY_SHADER_BIT         = 0x00000004
	INFO_LOG_LENGTH             = 0x8B84
	INT                         = 0x1404
	LINEAR                      = 0x2601
	LINES                       = 0x0001
	LINE_STRIP                  = 0x0003
	LINK_STATUS                 = 0x8b82
	MAP_READ_BIT                = 0x0001
	MAP_WRITE_BIT               = 0x0002
	MAX_TEXTURE_SIZE            = 0xd33
	NEAREST                     = 0x2600
	NO_ERROR                    = 0x0
	NUM_EXTENSIONS              = 0x821D
	NUM_SHADER_BINARY_FORMATS   = 0x8DF9
	POINTS                      = 0x0000
	PROGRAM_SEPARABLE           = 0x8258
	R32F                        = 0x822E
	READ_FRAMEBUFFER            = 0x8ca8
	READ_ONLY                   = 0x88B8
	READ_WRITE                  = 0x88BA
	RED                         = 0x1903
	RENDERBUFFER                = 0x8d41
	REPEAT                      = 0x2901
	RGBA                        = 0x1908
	RGBA32F                     = 0x8814
	RGBA8                       = 0x8058
	SHADER_BINARY_FORMAT_SPIR_V = 0x9551
	SHADER_BINARY_FORMATS       = 0x8DF8
	SHADER_STORAGE_BUFFER       = 0x90D2
	SHADING_LANGUAGE_VERSION    = 0x8B8C
	SHORT                       = 0x1402
	SPIR_V_BINARY               = 0x9552
	STATIC_DRAW                 = 0x88e4
	TEXTURE_1D                  = 0x0DE0
	TEXTURE_2D                  = 0x0de1
	TEXTURE_3D                  = 0x806F
	TEXTURE_MAG_FILTER          = 0x2800
	TEXTURE_MIN_FILTER          = 0x2801
	TEXTURE_WRAP_R              = 0x8072
	TEXTURE_WRAP_S              = 0x2802
	TEXTURE_WRAP_T              = 0x2803
	TEXTURE0                    = 0x84c0
	TRIANGLE_FAN                = 0x0006
	TRIANGLE_STRIP              = 0x5
	TRIANGLES                   = 0x4
	TRUE                        = 1
	UNIFORM_BLOCK_BINDING       = 0x8A3F
	UNIFORM_BLOCK_DATA_SIZE     = 0x8A40
	UNIFORM_BUFFER              = 0x8A11
	UNSIGNED_BYTE               = 0x1401
	UNSIGNED_INT                = 0x1405
	UNSIGNED_SHORT              = 0x1403
	VERSION                     = 0x1f02
	VERTEX_SHADER               = 0x8b31
	VERTEX_SHADER_BIT           = 0x00000001
	WRITE_ONLY                  = 0x88B9
)
