package toolchain

func builtinSpecs() []Spec {
	return []Spec{
		{
			Language:    "cpp",
			Description: "C++ (g++)",
			Kind:        Compiled,
			SourceFile:  "main.cpp",
			Compile:     []string{"g++", "{src}", "-o", "{bin}"},
			Run:         []string{"{bin}"},
		},
		{
			Language:    "c",
			Description: "C (gcc)",
			Kind:        Compiled,
			SourceFile:  "main.c",
			Compile:     []string{"gcc", "{src}", "-o", "{bin}"},
			Run:         []string{"{bin}"},
		},
		{
			Language:    "go",
			Description: "Go",
			Kind:        Compiled,
			SourceFile:  "main.go",
			Compile:     []string{"go", "build", "-o", "{bin}", "{src}"},
			Run:         []string{"{bin}"},
			Env:         []string{"GOMEMLIMIT={heap_mb}MiB"},
			// the go runtime reserves its arena lazily but maps large ranges at start
			AddressSpaceUnbounded: true,
		},
		{
			Language:    "rust",
			Description: "Rust (rustc)",
			Kind:        Compiled,
			SourceFile:  "main.rs",
			Compile:     []string{"rustc", "{src}", "-o", "{bin}"},
			Run:         []string{"{bin}"},
		},
		{
			Language:              "dart",
			Description:           "Dart (AOT executable)",
			Kind:                  Compiled,
			SourceFile:            "main.dart",
			Compile:               []string{"dart", "compile", "exe", "{src}", "-o", "{bin}"},
			Run:                   []string{"{bin}"},
			AddressSpaceUnbounded: true,
		},
		{
			Language:              "java",
			Description:           "Java (javac)",
			Kind:                  NameDerived,
			SourceFile:            "{name}.java",
			Compile:               []string{"javac", "{src}"},
			Run:                   []string{"java", "-Xmx{heap_mb}m", "-Xss{stack_kb}k", "-cp", "{dir}", "{name}"},
			Identifier:            JavaClassName,
			AddressSpaceUnbounded: true,
		},
		{
			Language:    "python",
			Description: "Python 3",
			Kind:        Interpreted,
			SourceFile:  "main.py",
			Compile:     []string{"python3", "-m", "py_compile", "{src}"},
			Run:         []string{"python3", "{src}"},
		},
		{
			Language:              "javascript",
			Description:           "JavaScript (node)",
			Kind:                  Interpreted,
			SourceFile:            "main.js",
			Compile:               []string{"node", "--check", "{src}"},
			Run:                   []string{"node", "--max-old-space-size={heap_mb}", "{src}"},
			AddressSpaceUnbounded: true,
		},
		{
			Language:    "ruby",
			Description: "Ruby",
			Kind:        Interpreted,
			SourceFile:  "main.rb",
			Compile:     []string{"ruby", "-c", "{src}"},
			Run:         []string{"ruby", "{src}"},
		},
		{
			Language:    "php",
			Description: "PHP",
			Kind:        Interpreted,
			SourceFile:  "main.php",
			Compile:     []string{"php", "-l", "{src}"},
			Run:         []string{"php", "{src}"},
			Policy:      PHPOpenTagPolicy,
			Prepare:     PHPPrepend,
		},
		{
			Language:              "typescript",
			Description:           "TypeScript (tsc, run with node)",
			Kind:                  Transpiled,
			SourceFile:            "main.ts",
			Binary:                "main.js",
			Compile:               []string{"tsc", "{src}"},
			Run:                   []string{"node", "--max-old-space-size={heap_mb}", "{bin}"},
			AddressSpaceUnbounded: true,
		},
		{
			Language:              "csharp",
			Description:           "C# (mcs, run with mono)",
			Kind:                  Compiled,
			SourceFile:            "main.cs",
			Binary:                "main.exe",
			Compile:               []string{"mcs", "-out:{bin}", "{src}"},
			Run:                   []string{"mono", "{bin}"},
			Env:                   []string{"MONO_GC_PARAMS=max-heap-size={heap_mb}m"},
			AddressSpaceUnbounded: true,
		},
	}
}
