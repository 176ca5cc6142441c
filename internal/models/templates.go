package models

// BuiltinCategories is the constant template catalog shipped with the app.
// Declaration order is presentation order. IDs must stay unique across the
// whole catalog because lookups key by id alone.
var BuiltinCategories = []TemplateCategory{
	{
		ID:          "style-transfer",
		Name:        "Style Transfer",
		Description: "Reimagine the photo in a different artistic style",
		Templates: []PromptTemplate{
			{ID: "style-oil-painting", Name: "Oil Painting", Description: "Classic oil on canvas look", Prompt: "Turn this photo into a classic oil painting with visible brush strokes"},
			{ID: "style-watercolor", Name: "Watercolor", Description: "Soft watercolor wash", Prompt: "Repaint this image as a soft watercolor illustration"},
			{ID: "style-pencil-sketch", Name: "Pencil Sketch", Description: "Hand-drawn graphite sketch", Prompt: "Convert this image into a detailed pencil sketch"},
			{ID: "style-anime", Name: "Anime", Description: "Japanese animation style", Prompt: "Redraw this photo in a vibrant anime art style"},
			{ID: "style-cyberpunk", Name: "Cyberpunk", Description: "Neon futuristic mood", Prompt: "Give this image a cyberpunk look with neon lights and a futuristic city mood"},
		},
	},
	{
		ID:          "photo-enhance",
		Name:        "Photo Enhancement",
		Description: "Improve quality without changing the subject",
		Templates: []PromptTemplate{
			{ID: "enhance-sharpen", Name: "Sharpen & Denoise", Description: "Crisper details, less noise", Prompt: "Sharpen this photo and remove noise while keeping it natural"},
			{ID: "enhance-lighting", Name: "Fix Lighting", Description: "Balance exposure and shadows", Prompt: "Fix the lighting in this photo, balancing highlights and shadows"},
			{ID: "enhance-colorize", Name: "Colorize", Description: "Add color to black and white", Prompt: "Colorize this black and white photo with realistic colors"},
			{ID: "enhance-restore", Name: "Restore Old Photo", Description: "Repair scratches and fading", Prompt: "Restore this old photo, repairing scratches, tears and faded colors"},
		},
	},
	{
		ID:          "background",
		Name:        "Background",
		Description: "Change or clean up the background",
		Templates: []PromptTemplate{
			{ID: "bg-remove", Name: "Remove Background", Description: "Clean transparent backdrop", Prompt: "Remove the background from this image, leaving only the main subject"},
			{ID: "bg-beach", Name: "Beach Scene", Description: "Sunny beach backdrop", Prompt: "Replace the background with a sunny tropical beach"},
			{ID: "bg-studio", Name: "Studio Backdrop", Description: "Neutral studio gray", Prompt: "Replace the background with a professional neutral studio backdrop"},
			{ID: "bg-blur", Name: "Blur Background", Description: "Portrait-style bokeh", Prompt: "Blur the background with a soft bokeh effect, keeping the subject sharp"},
		},
	},
	{
		ID:          "retouch",
		Name:        "Retouch",
		Description: "Targeted edits to the subject",
		Templates: []PromptTemplate{
			{ID: "retouch-remove-person", Name: "Remove Bystanders", Description: "Erase people in the background", Prompt: "Remove the people in the background of this photo"},
			{ID: "retouch-smile", Name: "Add a Smile", Description: "Subtle friendly smile", Prompt: "Make the person in this photo smile naturally"},
			{ID: "retouch-retro", Name: "Retro Filter", Description: "Warm vintage film tones", Prompt: "Apply a warm retro film filter to this photo"},
		},
	},
}
